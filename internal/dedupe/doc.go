// Package dedupe suppresses repeated submissions within a time window.
//
// The site uses it to drop double-posted contact forms: the form content is
// reduced to a Fingerprint and Claimed before anything is written.
package dedupe
