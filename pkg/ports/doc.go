/*
Package ports defines the driven ports (interfaces) of the clarification workflow.

These interfaces decouple the workflow core from external implementations, so the
same engine works with several storage backends, language models, search
providers and prompt sources.

# Key Interfaces

  - SessionStore: persists and loads session State between suspension points.
  - DistributedLocker: serializes access to a session across replicas.
  - Generator: produces structured records and free text from prompts.
  - Searcher: best-effort external lookup used by finalization.
  - Classifier: turns a user reply into an Outcome.
  - PromptLibrary: resolves prompt templates by name.
*/
package ports
