// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared execution resources for hioload-net: a fixed-size worker pool
// sized to hardware parallelism, a timer scheduler whose callbacks run on
// that pool, and the lazily created process-wide default instances every
// session borrows unless one is injected.
package concurrency
