// Package app hosts a template document: it loads the template and its model,
// keeps the rendered output current as the model changes, and serves a live
// preview. It is decoupled from any specific entrypoint like a CLI.
package app
