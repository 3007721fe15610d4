// Package discovery finds the hosts of a local IPv4 segment.
//
// A discovery run reads the OS neighbor table, sweeps the subnet to warm the
// neighbor cache, re-reads the table, probes every address for open ports
// and finally traceroutes every host that answered. Per-host work runs under
// counting semaphores; cancellation is checked before each task is scheduled,
// so a cancelled run still returns a partial result.
package discovery
