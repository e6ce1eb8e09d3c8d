package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/mail"
	"github.com/queryhub/QueryHub/internal/pkg/usercontext"
)

type createTeamRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type updateMemberRequest struct {
	Role string `json:"role"`
}

// HandleCreateTeam creates a team owned by the caller. The owner membership
// row is written in the same transaction by the repository.
func HandleCreateTeam(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	var req createTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}

	team := &models.Team{
		Name:    req.Name,
		OwnerID: userCtx.UserID,
	}
	if len(req.Name) < 3 || len(req.Name) > 150 {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Team name must be between 3 and 150 characters")
	}
	if err := repository.GetGlobalFactory().GetTeamRepository().Create(team); err != nil {
		log.Errorf("team creation failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Team creation failed")
	}

	return c.Status(fiber.StatusCreated).JSON(team)
}

// HandleListTeams returns the teams the caller belongs to.
func HandleListTeams(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	teams, err := repository.GetGlobalFactory().GetTeamRepository().GetByUserID(userCtx.UserID)
	if err != nil {
		log.Errorf("team listing failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Team listing failed")
	}

	return c.JSON(fiber.Map{"teams": teams})
}

// HandleGetTeam returns one team with its members. Only members may see it.
func HandleGetTeam(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	teamID, err := parseTeamID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid team id")
	}

	teamRepo := repository.GetGlobalFactory().GetTeamRepository()
	if _, err := teamRepo.GetMember(teamID, userCtx.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Team not found")
		}
		log.Errorf("membership lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Team lookup failed")
	}

	team, err := teamRepo.GetByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Team not found")
		}
		log.Errorf("team lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Team lookup failed")
	}
	members, err := teamRepo.GetMembers(teamID)
	if err != nil {
		log.Errorf("member listing failed for team %d: %v", teamID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Team lookup failed")
	}

	return c.JSON(fiber.Map{"team": team, "members": members})
}

// HandleDeleteTeam removes a team. Only the owner may delete it.
func HandleDeleteTeam(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	teamID, err := parseTeamID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid team id")
	}

	teamRepo := repository.GetGlobalFactory().GetTeamRepository()
	team, err := teamRepo.GetByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Team not found")
		}
		log.Errorf("team lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Team deletion failed")
	}
	if team.OwnerID != userCtx.UserID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Only the owner can delete a team")
	}

	if err := teamRepo.Delete(teamID); err != nil {
		log.Errorf("team deletion failed for team %d: %v", teamID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Team deletion failed")
	}

	return c.JSON(fiber.Map{"message": "Team deleted"})
}

// HandleAddTeamMember invites an existing user to the team by email.
func HandleAddTeamMember(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	teamID, err := parseTeamID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid team id")
	}
	var req addMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}
	role := req.Role
	if role == "" {
		role = models.TEAM_ROLE_MEMBER
	}
	if role != models.TEAM_ROLE_ADMIN && role != models.TEAM_ROLE_MEMBER {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Role must be admin or member")
	}

	factory := repository.GetGlobalFactory()
	teamRepo := factory.GetTeamRepository()
	caller, err := teamRepo.GetMember(teamID, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Team not found")
		}
		log.Errorf("membership lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Invitation failed")
	}
	if !caller.CanManageMembers() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Only owners and admins can manage members")
	}

	invitee, err := factory.GetUserRepository().GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No user with this email")
		}
		log.Errorf("invitee lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Invitation failed")
	}
	if _, err := teamRepo.GetMember(teamID, invitee.ID); err == nil {
		return jsonError(c, fiber.StatusConflict, "conflict", "User is already a member")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("membership lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Invitation failed")
	}

	member := &models.TeamMember{
		TeamID:    teamID,
		UserID:    invitee.ID,
		Role:      role,
		InvitedBy: userCtx.UserID,
	}
	if err := teamRepo.AddMember(member); err != nil {
		log.Errorf("member add failed for team %d: %v", teamID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Invitation failed")
	}

	if team, err := teamRepo.GetByID(teamID); err == nil {
		if err := mail.SendTeamInviteMail(invitee.Email, team.Name); err != nil {
			log.Warnf("invite mail to %s failed: %v", invitee.Email, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(member)
}

// HandleUpdateTeamMember changes a member's role. The owner role is fixed.
func HandleUpdateTeamMember(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	teamID, err := parseTeamID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid team id")
	}
	memberUserID, err := strconv.ParseUint(c.Params("userId"), 10, 32)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid member id")
	}
	var req updateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}
	if req.Role != models.TEAM_ROLE_ADMIN && req.Role != models.TEAM_ROLE_MEMBER {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Role must be admin or member")
	}

	teamRepo := repository.GetGlobalFactory().GetTeamRepository()
	caller, err := teamRepo.GetMember(teamID, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Team not found")
		}
		log.Errorf("membership lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Member update failed")
	}
	if !caller.CanManageMembers() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Only owners and admins can manage members")
	}

	member, err := teamRepo.GetMember(teamID, uint(memberUserID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Member not found")
		}
		log.Errorf("member lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Member update failed")
	}
	if member.Role == models.TEAM_ROLE_OWNER {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "The owner role cannot be changed")
	}

	member.Role = req.Role
	if err := teamRepo.UpdateMember(member); err != nil {
		log.Errorf("member update failed for team %d: %v", teamID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Member update failed")
	}

	return c.JSON(member)
}

// HandleRemoveTeamMember removes a member. Members may remove themselves,
// managers may remove anyone but the owner.
func HandleRemoveTeamMember(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	teamID, err := parseTeamID(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid team id")
	}
	memberUserID, err := strconv.ParseUint(c.Params("userId"), 10, 32)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid member id")
	}

	teamRepo := repository.GetGlobalFactory().GetTeamRepository()
	caller, err := teamRepo.GetMember(teamID, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Team not found")
		}
		log.Errorf("membership lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Member removal failed")
	}
	if uint(memberUserID) != userCtx.UserID && !caller.CanManageMembers() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Only owners and admins can manage members")
	}

	member, err := teamRepo.GetMember(teamID, uint(memberUserID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Member not found")
		}
		log.Errorf("member lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Member removal failed")
	}
	if member.Role == models.TEAM_ROLE_OWNER {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "The owner cannot be removed")
	}

	if err := teamRepo.RemoveMember(teamID, uint(memberUserID)); err != nil {
		log.Errorf("member removal failed for team %d: %v", teamID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Member removal failed")
	}

	return c.JSON(fiber.Map{"message": "Member removed"})
}

func parseTeamID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
