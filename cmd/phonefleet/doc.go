// Command phonefleet exports the phone inventory, repairs and filters the
// device records, and reports users whose phones were replaced early.
//
// Every subcommand reads the same TOML configuration (see `phonefleet config
// init`). `run` chains the clean, filter, and detect stages; the stage
// commands run one step against the files left by the previous one.
package main
