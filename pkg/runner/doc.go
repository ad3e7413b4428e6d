/*
Package runner drives a clarification session interactively.

The Runner starts or picks up a session, shows the pending confirmation
prompt, reads the user's reply and resumes the session until it completes.
How prompts are shown and replies read is delegated to an IOHandler: a
TextHandler for terminals and a JSONHandler for line-delimited JSON pipes.

Leaving the loop ("exit", EOF or Ctrl+C) keeps the session suspended in the
store, so it can be resumed later with the same session id.

# Usage

	r := runner.NewRunner(svc,
		runner.WithSessionID("user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
