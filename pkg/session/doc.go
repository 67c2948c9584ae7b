/*
Package session serializes the turns of each conversation.

A Manager loads the TurnState once at turn start, hands it to the turn
function and saves the result once at turn end, holding a ref-counted
in-process mutex per session id and, optionally, a distributed lock so two
replicas never run turns of the same session at once.
*/
package session
