// Package events defines the typed gateway event contract.
//
// Event kinds are grouped by direction:
//
//   - gateway.*: events received from the overlay gateway.
//   - overlay.*: events emitted back to the gateway.
//
// gateway events
//
//   - Connected (gateway.connected): transport connection established.
//   - Disconnected (gateway.disconnected): transport connection lost.
//   - StatusChanged (gateway.status): broadcast avatar status update.
//   - TalkRequested (gateway.talk): a single spoken message to deliver.
//   - ReplyTurnRequested (gateway.reply_turn): a two-phase conversational
//     turn, a viewer chat message followed by the avatar's reply.
//
// overlay events
//
//   - TalkDone (overlay.talk_done): acknowledgment that the item with the
//     carried id has finished its audio/delay phase. Emitted exactly once
//     per processed item.
package events
