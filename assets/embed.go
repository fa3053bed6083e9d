// Package assets embeds the static files of the web page.
package assets

import _ "embed"

// IndexTemplate is the html/template source of the single page.
//
//go:embed index.html.tpl
var IndexTemplate string

// Style is the page stylesheet.
//
//go:embed style.css
var Style string

// Script wires the map widget to the markers endpoint.
//
//go:embed script.js
var Script string

// Favicon is the site icon.
//
//go:embed favicon.svg
var Favicon []byte
