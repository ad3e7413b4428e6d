/*
Package domain contains the core models of the clarification workflow.

It defines the workflow state threaded through every step, the phases of the
state machine, the results handed back to callers and the errors shared by
every adapter. The package is free of I/O and persistence concerns.

# Key Entities

  - State: the snapshot of a session (phase, messages, interpretation, corrections, output).
  - Interpretation: the structured reading of a request presented to the user.
  - Outcome: how a user reply was classified (confirmed, corrected, rejected).
  - Result: either a SuspendedPrompt waiting for input or a FinalOutput.
*/
package domain
