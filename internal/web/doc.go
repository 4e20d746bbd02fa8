// Package web serves the Atlas chat application: the websocket chat
// endpoint, the REST surface under /api, and the embedded single-file
// chat page.
//
// The package also owns the request pipeline behind the chat endpoint.
// A Pipeline routes each message to an intent, answers it from the
// planner, the catalog tools, or the knowledge base, optionally has the
// advisor polish the draft, and records the exchange in the transcript
// store. The Server wraps a Pipeline with HTTP plumbing; the `atlas ask`
// command drives the same Pipeline without a server in front of it.
package web
