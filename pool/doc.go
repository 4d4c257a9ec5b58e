/*
Package pool runs the parse jobs of a batch on a bounded set of workers.

Each file is read and parsed independently, so files are dispatched in any
order and the only shared state is the collector that the parsed logs are
folded into. A failure to read or parse one file, including a panic in the
parser, is recorded for that file and never stops the rest of the batch.

The pool keeps an exponentially weighted moving average of per-file parse
time, which is reported in the batch result and in the batch log message.
*/
package pool

// this file is intentional documentation only.
