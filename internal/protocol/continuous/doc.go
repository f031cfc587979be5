/*
Package continuous keeps an authenticated session alive after the handshake.

# Overview

Both sides exchange small reauth messages encrypted under the shared key
from the handshake. Each message carries a 32-byte sequence number; a side
accepts a message only if its sequence number is exactly the successor of
the last one it sent. The verifier's first message carries the successor of
the prover's initial sequence number from AuthExtra.

# States

	ACTIVE <-> PAUSED -> STOPPED
	   any non-terminal -> ERROR
	   any non-terminal -> TIMEOUT (verifier only)

Transition is a pure function; Prover and Verifier apply it under their own
mutex and notify the application afterwards, outside the lock.

A side adopts the peer's announced state only when it differs from what the
peer announced last time. That lets either side pause, resume or stop the
session without the other immediately undoing it.

# Timeouts

The verifier replies with a timeout (10s ACTIVE, 50s PAUSED) and expects the
next message within that timeout plus a 5s leeway. The check is lazy: it
runs when the next message arrives, or when the caller gives up waiting and
calls Expire. There is no background alarm on the verifier side.
*/
package continuous
