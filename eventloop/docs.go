// Package eventloop implements a single-consumer dispatcher for chained events.
// Events are maintained in an in-memory FIFO queue, in the order they were enqueued.
// Each event carries an action and, optionally, a successor event that is appended to the tail of the queue once the action completes successfully.
// Users should interact with the Loop to enqueue and process events; a single goroutine drains the queue, and it sleeps until new events are enqueued when the queue is empty.
package eventloop
