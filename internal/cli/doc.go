// Package cli is the interactive console of SafeKeeper.
//
// A line-oriented REPL dispatches commands to App, which prompts for input,
// calls the vault and prints results. Master passwords are read without echo
// when stdin is a terminal.
package cli
