package db

import (
	"context"
	"sort"
	"strings"

	"classportal/models"
	"classportal/utils"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted for an account.
const MinPasswordLength = 6

func (db *Database) bcryptCost() int {
	if db.config == nil || db.config.BcryptCost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	return db.config.BcryptCost
}

// Authenticate returns the user matching the credentials. Unknown usernames and wrong
// passwords give the same error.
func (db *Database) Authenticate(username, password string) (models.User, error) {
	unlock := db.lock(CollUsers)
	defer unlock()

	users, err := db.loadUsers()
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, username) && utils.CheckPasswordHash(password, u.Password) {
			return u, nil
		}
	}
	return models.User{}, utils.Unauthorizedf("Invalid username or password.")
}

// GetUser returns a user by ID.
func (db *Database) GetUser(id string) (models.User, error) {
	unlock := db.lock(CollUsers)
	defer unlock()

	users, err := db.loadUsers()
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, utils.NotFoundf("User '%s' not found.", id)
}

// ListUsers returns every account sorted by username.
func (db *Database) ListUsers() ([]models.User, error) {
	unlock := db.lock(CollUsers)
	defer unlock()

	users, err := db.loadUsers()
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// CreateUser adds an account. The ID is the username.
func (db *Database) CreateUser(ctx context.Context, username, password, role string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, utils.BadRequestf("Field 'username' is required.")
	}
	if len(password) < MinPasswordLength {
		return models.User{}, utils.BadRequestf("Password must be at least %d characters.", MinPasswordLength)
	}
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return models.User{}, utils.BadRequestf("Invalid role '%s': expected '%s' or '%s'.", role, models.RoleAdmin, models.RoleUser)
	}

	unlock := db.lock(CollUsers)
	defer unlock()

	users, err := db.loadUsers()
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return models.User{}, utils.Conflictf("Username '%s' is already taken.", username)
		}
	}

	hash, err := utils.HashPassword(password, db.bcryptCost())
	if err != nil {
		return models.User{}, utils.IOFailure(err, "hashing password")
	}
	user := models.User{
		ID:        username,
		Username:  username,
		Password:  hash,
		Role:      role,
		CreatedAt: db.now(),
	}
	users = append(users, user)
	if err := db.save(ctx, CollUsers, users); err != nil {
		return models.User{}, err
	}
	log.WithFields(log.Fields{"user": username, "role": role}).Info("Created user")
	return user, nil
}

// DeleteUser removes an account. Callers cannot delete themselves.
func (db *Database) DeleteUser(ctx context.Context, id, callerID string) error {
	if id == callerID {
		return utils.BadRequestf("You cannot delete your own account.")
	}

	unlock := db.lock(CollUsers)
	defer unlock()

	users, err := db.loadUsers()
	if err != nil {
		return err
	}
	for i, u := range users {
		if u.ID == id {
			users = append(users[:i], users[i+1:]...)
			return db.save(ctx, CollUsers, users)
		}
	}
	return utils.NotFoundf("User '%s' not found.", id)
}

// SetPassword replaces the password hash of a user.
func (db *Database) SetPassword(ctx context.Context, id, password string) error {
	if len(password) < MinPasswordLength {
		return utils.BadRequestf("Password must be at least %d characters.", MinPasswordLength)
	}

	unlock := db.lock(CollUsers)
	defer unlock()

	users, err := db.loadUsers()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID != id {
			continue
		}
		hash, err := utils.HashPassword(password, db.bcryptCost())
		if err != nil {
			return utils.IOFailure(err, "hashing password")
		}
		users[i].Password = hash
		return db.save(ctx, CollUsers, users)
	}
	return utils.NotFoundf("User '%s' not found.", id)
}
