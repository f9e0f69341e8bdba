// Package kittest provides fake kit collaborators for tests.
package kittest
