// Package broker distributes conversation events to observers over named
// topics.
//
// Two implementations are provided:
//   - Local: in-process fan out over buffered channels, dropping subscribers
//     that fall behind
//   - NATS: events travel as JSON on subjects under SubjectPrefix, so a
//     listener can run in another process
//
// Subscribers are events.Hook values; every subscription runs its hook on its
// own goroutine and stops when its context is cancelled or it is
// unsubscribed.
//
//	topic := broker.Local().Topic(ctx, conversationID)
//	sub, err := topic.Subscribe(ctx, events.LoggingHook())
//	if err != nil {
//	    return err
//	}
//	defer sub.Unsubscribe()
//
//	err = topic.Publish(ctx, events.BusyChanged{Busy: true})
package broker
