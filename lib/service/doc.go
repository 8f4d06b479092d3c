// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service is the unix-socket transport between a managed-space
// worker and its clients.
//
// The protocol is one CBOR request and one CBOR response per
// connection. A request is a map with an "action" key plus
// action-specific fields. The response is a [Response] envelope:
// {ok: true, data: ...} or {ok: false, error: "..."}. The socket file
// is created mode 0600, so only processes of the worker's user can
// connect.
//
// [SocketServer] dispatches on the action name; [ServiceClient] opens a
// connection per [ServiceClient.Call] and turns failure responses into
// [*ServiceError].
package service
