// Package site serves the public portfolio: the home page, the full project
// list, the contact form and the theme toggle.
package site
