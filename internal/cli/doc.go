// Package cli implements the credvault command line: a cobra root with a
// few one-shot subcommands and an interactive shell for working with the
// remote file store under a saved or freshly entered account.
package cli
