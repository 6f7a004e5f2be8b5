// Package reader defines the contract between query execution and a
// storage engine: the Runner callback, the Result it produces, the Settings
// it receives, and how its errors are classified.
//
// Every error a Runner returns falls in one of two classes:
//
//	TransportError  transient (network, timeout, busy engine); strategies
//	                may fall back to a different execution shape
//	EngineError     permanent (malformed query, unknown column); the same
//	                shape would fail again, so the request aborts
//
// Errors of any other type are classified with Classify, which treats known
// network errnos and deadline expiry as transient and everything else as
// permanent.
package reader
