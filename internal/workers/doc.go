/*
Package workers sizes worker pools for containerized deployments.

runtime.NumCPU() reports the host's CPU count even when a cgroup limit
grants the container far fewer cores. Go 1.19+ sets GOMAXPROCS from the
container limit, so pool sizes derived from GOMAXPROCS(0) respect it.

The archiver uses ForIO to size its asset-fetch pool:

	numWorkers := workers.ForIO(16)

Operators can override the calculation with the GALLERY_WORKERS
environment variable.
*/
package workers
