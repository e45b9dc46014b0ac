// Package shared holds helpers used across packages that belong to no single
// layer.
//
// The testutil subpackage provides a buffered slog handler so tests can
// assert on the records a component logs:
//
//	logger, logs := testutil.NewTestLogger(t)
//	svc := services.NewReportService(st, v, nil, nil, logger)
//	...
//	assert.True(t, logs.ContainsMessage("report submitted"))
//
// Nothing here may import domain packages.
package shared
