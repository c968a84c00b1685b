// Package realtime keeps the process-wide index of live client connections
// and pushes notification events to them.
//
// Registry holds user id to connection sets behind 32 lock shards. Every
// connection owns a bounded outbox; senders never block on a slow client,
// frames that do not fit are dropped and logged. Handler is the gorilla
// websocket transport: it authenticates the handshake, sends the connected
// acknowledgement, answers ping with pong and manages type rooms on
// subscribe and unsubscribe.
//
//	reg := realtime.NewRegistry(realtime.JWTAuthenticator(tokens))
//	r.Get("/ws", realtime.NewHandler(reg).ServeHTTP)
//	reg.SendToUser(userID, realtime.EventNotification, n.View())
//
// Frames use the envelope {"event": "...", "data": ...}.
package realtime
