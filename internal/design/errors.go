package design

import "github.com/dukerupert/mutualaid/internal/apperr"

var (
	ErrDesignNotFound      = apperr.NotFound("Game design not found")
	ErrNotYourCommunity    = apperr.Forbidden("Not your community")
	ErrNotCreator          = apperr.Forbidden("Only the draft creator can edit this design")
	ErrNotDraft            = apperr.Conflict("Only draft designs can be edited")
	ErrLocked              = apperr.Conflict("This draft is locked: it has been submitted for governance")
	ErrTemplateNotFound    = apperr.NotFound("Template not found")
	ErrNoActiveDesign      = apperr.NotFound("No active game design to fork")
	ErrQuestTypeNotFound   = apperr.NotFound("Quest type not found")
	ErrSkillDomainNotFound = apperr.NotFound("Skill domain not found")
	ErrTierNotFound        = apperr.NotFound("Recognition tier not found")
	ErrTooManyQuestTypes   = apperr.Invalid("Maximum 20 quest types allowed")
	ErrTooManySkillDomains = apperr.Invalid("Maximum 15 skill domains allowed")
	ErrTooManyTiers        = apperr.Invalid("Maximum 7 recognition tiers allowed")
	ErrTooFewTiers         = apperr.Invalid("At least 2 recognition tiers required")
	ErrDuplicateQuestType  = apperr.Conflict("A quest type with this slug already exists")
	ErrDuplicateDomain     = apperr.Conflict("A skill domain with this slug already exists")
	ErrDuplicateTier       = apperr.Conflict("A tier with this number already exists")
	ErrDuplicateSource     = apperr.Conflict("Each recognition source type may appear only once")

	ErrNotSubmitter      = apperr.Forbidden("Only the draft creator can submit")
	ErrSubmitNotDraft    = apperr.Conflict("Only draft designs can be submitted")
	ErrAlreadySubmitted  = apperr.Conflict("Already submitted for governance")
	ErrLockFailed        = apperr.Conflict("Failed to lock draft, proposal rolled back")
	ErrProposalNotFound  = apperr.NotFound("Proposal not found")
	ErrProposalNotPassed = apperr.Conflict("Proposal has not passed")
	ErrProposalCommunity = apperr.Forbidden("Proposal is not in your community")
	ErrNoLinkedDraft     = apperr.NotFound("No draft linked to this proposal")
	ErrNotSubmitted      = apperr.Conflict("This draft has not been submitted")
	ErrProposalOpen      = apperr.Conflict("Proposal is still open")
	ErrProposalPassed    = apperr.Conflict("Proposal has passed; activate the design instead")
)
