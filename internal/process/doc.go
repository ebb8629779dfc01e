// Package process creates the editor child process and the pipes that
// connect it to the front-end.
//
// Descriptors:
//   - Every Pipe is opened close-on-exec, so no descriptor leaks into an
//     unrelated child.
//   - A spawn installs exactly the descriptors named in Streams as the
//     child's stdin, stdout and stderr; everything else stays closed in the
//     child.
//   - After a spawn the caller closes the child's ends in the parent, or
//     the reader never sees end-of-stream.
//
// Spawning:
//   - SpawnByPath runs an executable by path; SpawnByName searches PATH the
//     way the shell does.
//   - The child environment is the parent's current environment with the
//     overlay applied on top. The overlay never replaces it.
//   - Failure is reported through Subprocess.Err with the platform errno.
//     Nothing is retried and no child is left behind.
//
// The window between fork and exec is handled by syscall.ForkExec, which only
// duplicates descriptors and execs there: no allocation, locking or logging.
//
// Waiting for the child is the caller's business; Wait is provided for
// callers that own the process id.
package process
