// Package errors provides the failure taxonomy for recoverykit.
//
// AppError carries a machine-readable code, a user-facing message and a
// retryable flag. Classify maps any error, including plain network and
// decoding errors, onto a Kind (connection, timeout, validation, format,
// api, unknown) with a Severity and a friendly message.
package errors
