// Package database stores crawl history in SQLite.
//
// Every finished run is saved with its page records (URL, outcome and
// content hash). The history command lists runs and compares the two
// newest runs of a domain to show which pages were added, removed or
// changed.
//
// The database lives in $XDG_DATA_HOME/sitescraper and uses the CGO-free
// modernc.org/sqlite driver.
package database
