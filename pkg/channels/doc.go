// Package channels hands notifications to the external delivery channels.
//
// Only the enqueue side lives here. Email is rendered with templ and sent
// through the Postmark mailer. Push and sms are published as persistent JSON
// messages on the "notifications" topic exchange with routing keys
// channel.push and channel.sms, for downstream workers to deliver. A Router
// picks the Sender per channel; unregistered channels fail with
// ErrUnsupportedChannel.
package channels
