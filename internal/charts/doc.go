// Package charts rasterizes dashboard charts into PNG images for export.
//
// NativeRenderer draws directly with go-chart. BrowserRasterizer loads the
// go-chart SVG into headless Chrome and screenshots the chart element, the
// same capture path a browser dashboard would take. Both supersample at a
// fixed scale so embedded images stay sharp when the document is zoomed.
//
// Render failures are returned to the caller, which skips that chart.
package charts
