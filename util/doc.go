// Package util provides small generic helpers shared by the schema,
// definition and run-config packages, mostly ordered map iteration.
package util
