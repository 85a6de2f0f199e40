package containers

import (
	"fmt"
	"io"
	"strings"

	"github.com/BoltKey/OddOneOut-sub000/utils"
)

type LoginUser struct {
	Email       string
	Password    string
	DisplayName string
}

func ParseLoginUser(data io.Reader) (*LoginUser, error) {
	user := &LoginUser{}
	if err := utils.Parse(data, user); err != nil {
		return nil, err
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.DisplayName = strings.TrimSpace(user.DisplayName)
	if user.Email == "" || user.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	return user, nil
}

type ChangeUser struct {
	DisplayName string
}

func ParseChangeUser(data io.Reader) (*ChangeUser, error) {
	user := &ChangeUser{}
	if err := utils.Parse(data, user); err != nil {
		return nil, err
	}
	user.DisplayName = strings.TrimSpace(user.DisplayName)
	if user.DisplayName == "" {
		return nil, fmt.Errorf("display name is required")
	}
	return user, nil
}

// User is the public view of a player.
type User struct {
	ID          uint
	DisplayName string
	IsGuest     bool
	GuessRating int
	ClueRating  float64
}
