/*
Package observability turns engine lifecycle hooks into logs and metrics.

LogHooks writes one structured record per stage, route decision, recovery and
turn. Metrics keeps Prometheus counters for the same events and serves them
from its own registry. Chain combines several hook sets so both can be
installed on one engine.
*/
package observability
