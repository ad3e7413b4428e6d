/*
Package clarify runs a human-in-the-loop clarification workflow for LLM requests.

Before answering, the workflow restates what it understood, asks the user to
confirm it, and folds corrections back into the next attempt. The session is
a small state machine with a single suspension point:

	interpreting -> presenting -> classifying -> finalizing -> done
	     ^                             |
	     +-----------------------------+  (corrected / rejected)

While suspended the state lives in a SessionStore, so a session can be resumed
from another process, or after a restart.

# Architecture

The core (internal/runtime) is stateless: it receives a snapshot, runs steps
until the session suspends or completes, and returns the new snapshot. The
Service facade in this package loads, locks and saves sessions around it.
Collaborators are ports (pkg/ports): a Generator for the model, an optional
Searcher for web context, a SessionStore and a PromptLibrary.

# Usage

	gen, err := genai.New(ctx, genai.Config{APIKey: os.Getenv("GEMINI_API_KEY")})
	if err != nil {
		log.Fatal(err)
	}

	svc := clarify.New(clarify.NewEngine(gen), memory.NewStore())

	res, err := svc.Start(ctx, "", "Tell me about solar panels")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Prompt.PromptText)

	res, err = svc.Resume(ctx, res.SessionID, "yes", clarify.WithRevision(res.Revision))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Final.Result)
*/
package clarify
