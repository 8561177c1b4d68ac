// Package relay orchestrates multi-agent conversations in chat rooms.
//
// A session is triggered by a user message and runs rounds in which every
// agent takes one turn, progressing through greeting, small-talk and
// discussion phases. Rooms with a designated facilitator switch to a
// moderated call-and-answer protocol after the opening rounds. Sessions end
// on round, time or message budgets, when the room's meeting is closed, or
// when a user posts a new message mid-session.
//
// Turn failures are isolated: a failed or empty generation skips that agent's
// turn and the session continues. Agent responses are sanitized against
// leaked speaker labels before persistence.
package relay
