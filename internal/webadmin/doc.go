// Package webadmin provides the web-based content admin.
//
// # Overview
//
// A single tabbed page at /admin edits everything the public site shows:
//
//   - Profile: name, title, tagline, bio, email, photo and social links
//   - Skills: skill categories, one "Category: a, b, c" line each
//   - Projects: add, update and delete portfolio entries
//   - Messages: contact submissions with an unread badge and mark-read
//
// # Settings Buffer
//
// Profile and skills forms merge into the editor.Controller buffer. The
// save bar shows the controller state and the Save button is disabled
// unless CanSave reports true. A failed save leaves the buffer intact and
// the page shows an error flash.
//
// # Forms
//
// Every mutation is a plain form POST followed by a 303 redirect back to
// the tab, with flash or error text in the query string. Posts carry a
// CSRF token checked against the folio_admin_csrf cookie (double submit).
//
// # Templates
//
// Templates use Go's html/template and are embedded in the binary:
//
//   - Base layout: templates/base.html
//   - Tabs: templates/dashboard.html
package webadmin
