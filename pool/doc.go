// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable scratch memory for socket reads.
//
// Sessions borrow a fixed-capacity read buffer per read, copy what arrived
// into a freshly owned message and hand the scratch buffer back, so no
// consumer ever aliases memory the next read is about to overwrite.
package pool
