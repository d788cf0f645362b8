// Package model defines the core data structures shared by the crawler,
// the result sink and the history store.
//
// The main types are:
//   - PageRecord: the immutable result of processing one frontier entry
//   - CrawlRun: one crawl of one seed, with its records in visitation order
//
// Models live in their own package so that crawler, report and database can
// all depend on them without import cycles. Every type is JSON-serializable;
// the JSON form is what the site profile writes and what the history store
// keeps.
package model
