// Package core provides the business logic for delivery export reconciliation.
//
// It has no transport dependencies: the web handlers and the CLI both drive
// the same [Service].
//
// # Pipeline
//
// One upload flows through these stages, strictly in row order:
//
//  1. [Extractor] reads the first sheet of the workbook and maps each data row
//     onto an [OrderRecord] using a schema.Layout.
//  2. [Dedup] keeps the first record per order code.
//  3. [Engine] looks every record up through the [Gateway] and classifies it
//     as new, updated or unchanged.
//  4. [Service] inserts the new records in one batch and writes each status
//     change.
//  5. [Dispatcher] sends one message per created or updated record.
//
// Per-row and per-record failures never abort the batch. They are collected
// as [Issue] values in the run's [Report].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - FILE001-FILE005: upload and workbook errors
//   - VAL001: rows without an order code
//   - ORD001: unknown orders
//   - DB001-DB008: store errors
//   - UPL002-UPL005: concurrency, cancellation and timeouts
package core
