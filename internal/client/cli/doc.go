// Package cli implements the GophVault command-line client.
//
// Commands
//
//	upload <path> [-t title]   split a file into chunks and upload it
//	resume <token>             finish an interrupted upload
//	status <token>             show the server-side progress of an upload
//	cancel <token>             abort an upload and forget it locally
//	download <file_id> [-o out]
//	list                       list uploaded files
//	pending                    list unfinished uploads started here
//	stats                      show account usage
//	shell                      read commands from standard input
//
// Global configuration flags (see package config) may appear anywhere on the
// command line. Progress is drawn on standard error when it is a terminal.
package cli
