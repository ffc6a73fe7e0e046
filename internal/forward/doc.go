/*
Package forward delivers accepted telemetry records to the downstream sink.

# Overview

Ingestion and delivery are deliberately decoupled. Handlers persist a record,
then hand it to the Dispatcher and move on; workers deliver it through the
Forwarder on their own time. A record travels through three layers:

	Dispatcher (bounded queue, drops when full)
	  -> Forwarder (circuit breaker around the whole retry loop)
	       -> retry.Engine (backoff between attempts)
	            -> Client (one HTTP POST per attempt)
	                 -> Classify (verdict per attempt)

The circuit breaker is the outermost delivery layer on purpose: its counters
track final outcomes, so one record that needed three attempts before
succeeding counts as a single success, not two failures.

# Failure containment

Forward returns a plain bool and absorbs everything else. A sink outage
shows up in logs, metrics, and the admin API, never in an ingestion
response. When no sink is configured the pipeline is disabled and Forward
reports false without touching the network.
*/
package forward
