package validate

import "strings"

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

func UserID(id int64) bool {
	return id > 0
}
