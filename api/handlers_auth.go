package api

import (
	"net/http"

	"classportal/config"
	"classportal/db"
	"classportal/models"
	"classportal/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// --- Login ---

// LoginRequest holds the credentials for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token and the account it belongs to.
type LoginResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// LoginHandler authenticates a user and returns a JWT.
// @Summary      Log In
// @Description  Exchanges a username and password for a bearer token. Send it as `Authorization: Bearer <token>`
// @Description  on every write request. Tokens expire after the configured lifetime (24 hours by default).
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Username and password"
// @Success      200  {object}  LoginResponse
// @Failure      400  {object}  utils.APIError "Bad Request: username or password missing."
// @Failure      401  {object}  utils.APIError "Unauthorized: wrong username or password."
// @Router       /auth/login [post]
func LoginHandler(c *gin.Context, database *db.Database, cfg *config.Config) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}

	user, err := database.Authenticate(req.Username, req.Password)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}

	token, err := utils.GenerateJWT(user, cfg)
	if err != nil {
		log.Errorf("Failed to generate JWT for %s: %v", user.ID, err)
		utils.GinInternalServerError(c, "Failed to generate authentication token.")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, User: user.Public()})
}

// MeHandler returns the account of the caller.
// @Summary      Current User
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.PublicUser
// @Failure      401  {object}  utils.APIError
// @Failure      404  {object}  utils.APIError "Not Found: the account was deleted after the token was issued."
// @Router       /auth/me [get]
func MeHandler(c *gin.Context, database *db.Database) {
	user, err := database.GetUser(c.GetString(utils.CtxUserID))
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// --- Users ---

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

// SetPasswordRequest is the body of PUT /api/users/{id}/password.
type SetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ListUsersHandler lists every account.
// @Summary      List Users
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.PublicUser
// @Failure      401  {object}  utils.APIError
// @Failure      403  {object}  utils.APIError "Forbidden: administrator role required."
// @Router       /users [get]
func ListUsersHandler(c *gin.Context, database *db.Database) {
	users, err := database.ListUsers()
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	c.JSON(http.StatusOK, out)
}

// CreateUserHandler creates an account.
// @Summary      Create User
// @Description  Creates an account. `role` is `admin` or `user` (default). Passwords need at least 6 characters.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user body CreateUserRequest true "New account"
// @Success      201  {object}  models.PublicUser
// @Failure      400  {object}  utils.APIError
// @Failure      403  {object}  utils.APIError
// @Failure      409  {object}  utils.APIError "Conflict: username already taken."
// @Router       /users [post]
func CreateUserHandler(c *gin.Context, database *db.Database) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	user, err := database.CreateUser(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user.Public())
}

// DeleteUserHandler deletes an account other than the caller's.
// @Summary      Delete User
// @Tags         Users
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      204  "No Content"
// @Failure      400  {object}  utils.APIError "Bad Request: you cannot delete yourself."
// @Failure      404  {object}  utils.APIError
// @Router       /users/{id} [delete]
func DeleteUserHandler(c *gin.Context, database *db.Database) {
	if err := database.DeleteUser(c.Request.Context(), c.Param("id"), c.GetString(utils.CtxUserID)); err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPasswordHandler changes a password. Admins may change anyone's, users only their own.
// @Summary      Change Password
// @Tags         Users
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string              true  "User ID"
// @Param        body  body  SetPasswordRequest  true  "New password"
// @Success      204  "No Content"
// @Failure      400  {object}  utils.APIError
// @Failure      403  {object}  utils.APIError "Forbidden: not your account."
// @Failure      404  {object}  utils.APIError
// @Router       /users/{id}/password [put]
func SetPasswordHandler(c *gin.Context, database *db.Database) {
	id := c.Param("id")
	if c.GetString(utils.CtxRole) != models.RoleAdmin && c.GetString(utils.CtxUserID) != id {
		utils.GinForbidden(c, "You can only change your own password.")
		return
	}
	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, bindingMessage(err))
		return
	}
	if err := database.SetPassword(c.Request.Context(), id, req.Password); err != nil {
		utils.GinFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
