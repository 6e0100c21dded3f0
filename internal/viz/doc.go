// Package viz draws run results in the terminal.
//
//   - [Canvas]: Braille pixel canvas, 2x4 dots per character cell
//   - [Scatter], [Extremes]: parent vs child measurements
//   - [Strip]: selected parents and their children joined by lines
//   - [SummaryPanel]: the summary text in a bordered panel
//   - [TrendPlot]: mean effect against measurement error
//   - [CanvasToSVG], [ScatterSVG]: vector export
package viz
