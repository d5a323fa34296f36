package noip

import (
	"strings"
	"time"
)

// Response verbs returned by the update endpoint.
const (
	VerbGood        = "good"
	VerbNoChange    = "nochg"
	VerbNoHost      = "nohost"
	VerbBadAuth     = "badauth"
	VerbBadAgent    = "badagent"
	VerbNotDonator  = "!donator"
	VerbAbuse       = "abuse"
	VerbServerError = "911"
)

// ServerErrorPause is how long to wait after a "911" before continuing.
// The provider asks clients not to retry sooner than this.
const ServerErrorPause = 30 * time.Minute

// Outcome classifies a single response line.
type Outcome int

const (
	// Success means the hostname is up to date.
	Success Outcome = iota
	// SoftFailure is a failure that does not indicate an account problem.
	// No verb currently maps to it; it counts as a failed line.
	SoftFailure
	// FatalFailure means the agent must stop sending updates.
	FatalFailure
	// RetryAfter means the provider had an internal error and the caller
	// must pause before continuing. The line still counts as successful.
	RetryAfter
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SoftFailure:
		return "soft_failure"
	case FatalFailure:
		return "fatal_failure"
	case RetryAfter:
		return "retry_after"
	default:
		return "unknown"
	}
}

// Result is the classification of one response line.
type Result struct {
	Line        string
	Verb        string
	Outcome     Outcome
	Explanation string

	// Pause is set for RetryAfter outcomes.
	Pause time.Duration
}

// OK reports whether the line counts towards a successful update.
func (r Result) OK() bool {
	return r.Outcome == Success || r.Outcome == RetryAfter
}

type verbInfo struct {
	outcome     Outcome
	explanation string
	pause       time.Duration
}

var verbs = map[string]verbInfo{
	VerbGood: {
		outcome:     Success,
		explanation: "DNS hostname update successful. Followed by a space and the IP address it was updated to.",
	},
	VerbNoChange: {
		outcome:     Success,
		explanation: "IP address is current, no update performed. Followed by a space and the IP address that it is currently set to.",
	},
	VerbNoHost: {
		outcome:     FatalFailure,
		explanation: "Hostname supplied does not exist under specified account, client exit and require user to enter new login credentials before performing an additional request.",
	},
	VerbBadAuth: {
		outcome:     FatalFailure,
		explanation: "Invalid username password combination.",
	},
	VerbBadAgent: {
		outcome:     FatalFailure,
		explanation: "Client disabled. Client should exit and not perform any more updates without user intervention.",
	},
	VerbNotDonator: {
		outcome:     FatalFailure,
		explanation: "An update request was sent including a feature that is not available to that particular user such as offline options.",
	},
	VerbAbuse: {
		outcome:     FatalFailure,
		explanation: "Username is blocked due to abuse. Either for not following our update specifications or disabled due to violation of the No-IP terms of service. Our terms of service can be viewed at https://www.noip.com/legal/tos. Client should stop sending updates.",
	},
	VerbServerError: {
		outcome:     RetryAfter,
		explanation: "A fatal error on our side such as a database outage. Retry the update no sooner than 30 minutes.",
		pause:       ServerErrorPause,
	},
}

const unknownExplanation = "An unknown message was returned."

// Classify interprets one line of an update response.
// The verb is the first whitespace-delimited token and is matched exactly.
// Unrecognized verbs are fatal.
func Classify(line string) Result {
	var verb string
	if fields := strings.Fields(line); len(fields) > 0 {
		verb = fields[0]
	}

	info, ok := verbs[verb]
	if !ok {
		return Result{
			Line:        line,
			Verb:        verb,
			Outcome:     FatalFailure,
			Explanation: unknownExplanation,
		}
	}
	return Result{
		Line:        line,
		Verb:        verb,
		Outcome:     info.outcome,
		Explanation: info.explanation,
		Pause:       info.pause,
	}
}

// Known reports whether verb is part of the protocol.
func Known(verb string) bool {
	_, ok := verbs[verb]
	return ok
}
