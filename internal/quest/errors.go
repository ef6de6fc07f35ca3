package quest

import "github.com/dukerupert/mutualaid/internal/apperr"

var (
	ErrNotFound         = apperr.NotFound("Quest not found")
	ErrWrongCommunity   = apperr.Forbidden("Quest is not in your community")
	ErrNotAvailable     = apperr.Conflict("Quest is no longer available")
	ErrOwnQuestClaim    = apperr.Forbidden("Cannot claim your own quest")
	ErrOwnQuestJoin     = apperr.Forbidden("Cannot join your own quest")
	ErrNotRecruiting    = apperr.Conflict("Quest is not accepting party members")
	ErrPartyFull        = apperr.Conflict("Party is full")
	ErrAlreadyMember    = apperr.Conflict("You are already in this party")
	ErrNotInProgress    = apperr.Conflict("Quest is not in progress")
	ErrNotPartyMember   = apperr.Forbidden("Only party members can complete this quest")
	ErrNotPending       = apperr.Conflict("Quest is not pending validation")
	ErrOwnQuestValidate = apperr.Forbidden("Cannot validate your own quest")
	ErrMemberValidate   = apperr.Forbidden("Party members cannot validate a quest they worked on")
	ErrAlreadyValidated = apperr.Conflict("You already validated this quest")
	ErrInvalidID        = apperr.Invalid("Invalid quest id")
)
