// Package hub connects view models to a server hub over WebSocket.
//
// A Hub dials the configured endpoint when started and keeps the
// connection alive: a dropped socket is redialed with exponential backoff
// and, once it is back, OnReconnected subscribers run before OnConnected
// ones. Messages are the JSON envelopes of package protocol.
//
//	h := hub.New(hub.ConfigFrom(cfg.Hub))
//	defer h.Close()
//	reg := viewmodel.NewRegistry(h)
//
// Hub implements viewmodel.Hub. Sends made while the socket is down fail
// with E063; the viewmodel package avoids them by checking IsConnected.
package hub
