package chat

import (
	"context"
	"errors"

	"github.com/RoseWrightdev/chat-backend/internal/v1/apperr"
	"github.com/RoseWrightdev/chat-backend/internal/v1/logging"
	"github.com/RoseWrightdev/chat-backend/internal/v1/repository"
)

func handleInvite(ctx context.Context, actorID, roomID, username string, deps Deps) {
	room, err := deps.Repo.GetRoomByID(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.RoomNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	invitee, err := deps.Repo.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.UserNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	inviteeIsMember, err := deps.Repo.IsMember(ctx, roomID, invitee.ID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}
	if inviteeIsMember {
		deps.Bcast.Send(actorID, errorEvent(apperr.TargetAlreadyRoomMember()))
		return
	}

	actorIsMember, err := deps.Repo.IsMember(ctx, roomID, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}
	if !actorIsMember {
		deps.Bcast.Send(actorID, errorEvent(apperr.NotRoomMember()))
		return
	}

	actor, err := deps.Repo.GetUserByID(ctx, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.As(err)))
		return
	}

	inv, err := deps.Repo.CreateInvitation(ctx, roomID, room.Name, invitee.ID, invitee.Username, actorID, actor.Username)
	if errors.Is(err, repository.ErrAlreadyExists) {
		deps.Bcast.Send(actorID, errorEvent(apperr.AlreadyInvited()))
		return
	}
	if err != nil {
		logging.Error(ctx, "create invitation failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	deps.Bcast.Send(actorID, Event{Type: "invitation_sent", Payload: InvitationSent{
		InvitationID: inv.ID, RoomID: roomID, RoomName: room.Name, InviteeUsername: invitee.Username,
	}})
	deps.Bcast.Send(invitee.ID, Event{Type: "invitation_received", Payload: InvitationReceived{
		InvitationID: inv.ID, RoomID: roomID, RoomName: room.Name, InviterUsername: actor.Username,
	}})
}

func handleDeclineInvitation(ctx context.Context, actorID, invitationID string, deps Deps) {
	inv, err := deps.Repo.GetInvitationByID(ctx, invitationID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.InvitationNotFound()))
		return
	}
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	updated, err := deps.Repo.DeclineInvitation(ctx, invitationID)
	if errors.Is(err, repository.ErrNotFound) {
		deps.Bcast.Send(actorID, errorEvent(apperr.NoPendingInvitation()))
		return
	}
	if err != nil {
		logging.Error(ctx, "decline invitation failed")
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	deps.Bcast.Send(actorID, Event{Type: "invitation_declined", Payload: InvitationDeclined{InvitationID: updated.ID}})
	deps.Bcast.Send(inv.InviterID, Event{Type: "invitee_declined", Payload: InviteeDeclined{
		InvitationID: updated.ID, RoomID: inv.RoomID, RoomName: inv.RoomName, InviteeUsername: inv.InviteeUsername,
	}})
}

func handleGetPendingInvitations(ctx context.Context, actorID string, deps Deps) {
	invs, err := deps.Repo.GetPendingInvitationsForUser(ctx, actorID)
	if err != nil {
		deps.Bcast.Send(actorID, errorEvent(apperr.Internal(err)))
		return
	}

	infos := make([]InvitationInfo, len(invs))
	for i, inv := range invs {
		infos[i] = InvitationInfo{
			InvitationID: inv.ID, RoomID: inv.RoomID, RoomName: inv.RoomName,
			Status: string(inv.Status), InviterUsername: inv.InviterUsername, CreatedAt: inv.CreatedAt,
		}
	}

	deps.Bcast.Send(actorID, Event{Type: "pending_invitations", Payload: PendingInvitations{PendingInvitations: infos}})
}
