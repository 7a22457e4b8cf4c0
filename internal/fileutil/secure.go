// Package fileutil creates the governor's private files with owner-only
// access. Everything the daemon persists is sensitive to some degree - the
// PID and port files steer clients, the log can carry code fragments from
// evaluations, and the audit export contains the full decision record - so
// all of it goes through these helpers.
//
// On Unix the kernel enforces the 0600/0700 mode bits directly. On Windows
// mode bits are ignored, so an explicit DACL granting access only to the
// current user is applied instead.
package fileutil
