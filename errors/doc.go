// Package errors provides the structured error type shared by every package
// of the run-config engine. Definition errors abort schema construction,
// validation errors carry the complete list of problems found in a document.
package errors
