// Package core runs the DataSweeper pipeline over uploaded files.
//
// It holds everything between the transport layer and the table model, so
// the web server, the CLI and tests all drive the same code.
//
// # Pipeline
//
// One linear flow per file:
//
//  1. [Ingest] parses CSV or XLSX bytes into a [table.Table]
//  2. [Clean] drops duplicate rows and fills missing numeric values
//  3. [table.Select] narrows to the chosen columns, in the chosen order
//  4. [table.Chart] summarizes the first two numeric columns
//  5. [Convert] writes CSV or Excel for download
//
// Steps 2 and 3 are replayed from the untouched original on every call to
// [Evaluate], driven by a [CleaningState]. [ProcessBatch] runs the flow on a
// batch of files; a failing file is reported and never stops the others.
//
// # Sessions
//
// [Service] keeps one set of files and states per browser session, in
// memory only. Sessions idle longer than the configured TTL are dropped by
// [Service.StartJanitor]. Concurrent batch ingestion is bounded by an
// [UploadLimiter].
//
// # Error Handling
//
// Per-file failures are [*FileError] values whose Kind is
// [ErrUnsupportedFormat], [ErrParse] or [ErrConversion]. [MapError] turns any
// error into a [UserMessage] with a support code:
//
//   - FILE001-FILE007: upload and file content problems
//   - CONV001-CONV002: conversion and output format
//   - COL001-COL002: column selection
//   - SES001-SES002: expired session or file
//   - UPL002-UPL005: busy, cancelled, timed out
package core
