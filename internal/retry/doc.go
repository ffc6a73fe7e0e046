/*
Package retry provides policy-driven retries with exponential backoff.

# Overview

Operations report the verdict of each attempt as an Outcome (success,
retryable failure, or permanent failure) and the engine decides whether to
invoke them again. Separating the verdict from Go errors keeps transport
code, classification, and retry scheduling independent of each other.

# Usage

	engine := retry.NewEngine(logger)

	err := engine.DoContext(ctx, retry.ExternalService(), "sink metric",
		func(ctx context.Context) retry.Outcome {
			resp, err := client.Send(ctx, body)
			if err != nil {
				return retry.Retry(err)
			}
			if resp.StatusCode >= 500 {
				return retry.Retry(fmt.Errorf("sink error: %s", resp.Status))
			}
			return retry.Succeed()
		})

# Backoff

The wait after failed attempt k is InitialDelay * BackoffFactor^(k-1),
capped at MaxDelay, so the sequence grows geometrically and then plateaus.
A policy with MaxAttempts n invokes the operation at most n times.

# Results

	nil               an attempt succeeded
	*PermanentError   an attempt reported a non-retryable failure
	*ExhaustedError   every allowed attempt failed; wraps the last cause
	ctx.Err()         the caller cancelled between attempts
*/
package retry
