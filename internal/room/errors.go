package room

import "github.com/lox/triviaholdem/internal/game"

var (
	ErrInvalidRoom         = game.NewError(game.KindPreconditionFailed, "invalid_room", "invalid room settings")
	ErrRoomNotFound        = game.NewError(game.KindNotFound, "room_not_found", "room not found")
	ErrRoomExists          = game.NewError(game.KindConflict, "room_exists", "you already host a room with that name")
	ErrRoomNotWaiting      = game.NewError(game.KindPreconditionFailed, "room_not_waiting", "room is not waiting for players")
	ErrRoomNotPlaying      = game.NewError(game.KindPreconditionFailed, "room_not_playing", "no game in progress")
	ErrRoomNotEnded        = game.NewError(game.KindPreconditionFailed, "room_not_ended", "the current game has not ended")
	ErrRoomFull            = game.NewError(game.KindPreconditionFailed, "room_full", "room is full")
	ErrAlreadyJoined       = game.NewError(game.KindConflict, "already_joined", "already in this room")
	ErrBadPassword         = game.NewError(game.KindForbidden, "bad_password", "wrong room password")
	ErrNotInRoom           = game.NewError(game.KindForbidden, "not_in_room", "not a member of this room")
	ErrNotHost             = game.NewError(game.KindPreconditionFailed, "not_host", "only the host can do that")
	ErrInsufficientPlayers = game.NewError(game.KindPreconditionFailed, "insufficient_players", "at least two players are needed")
	ErrPlayersNotReady     = game.NewError(game.KindPreconditionFailed, "players_not_ready", "not every player is ready")
	ErrQuestionUnavailable = game.NewError(game.KindInternal, "question_unavailable", "the question service is unavailable")
	ErrRoomClosed          = game.NewError(game.KindInternal, "room_closed", "room is shutting down")
	ErrEngineFailure       = game.NewError(game.KindInternal, "engine_failure", "the hand was aborted after an internal error")
)
