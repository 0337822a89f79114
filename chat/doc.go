// Package chat owns the live chat session: it dials the relay over TLS,
// performs the capability/auth/nick/join handshake, decodes inbound frames,
// and feeds them to the room state tracker and the message buffer. It also
// contains the optional Postgres archiver that persists every processed
// message.
//
// The session never reconnects on its own; a transport failure transitions it
// to closed and the caller decides whether to build a new one.
package chat
