package ws

// EventChatTurn is broadcast after a chat message is durably persisted.
// Its payload is the turn event published on the message queue, so
// WebSocket clients and queue consumers see identical data.
const EventChatTurn = "chat.turn"
