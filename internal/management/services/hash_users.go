package services

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bematende/bematende-backend/pkg/utils"
)

type userFile struct {
	Users []map[string]interface{} `json:"users"`
}

// HashUserPasswords mengganti setiap field "password" berbentuk teks di
// dokumen {"users": [...]} dengan "passwordHash" bcrypt. Mengembalikan
// dokumen baru dan jumlah user yang diubah; dokumen nil bila tidak ada yang berubah.
func HashUserPasswords(doc []byte) ([]byte, int, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, 0, fmt.Errorf("parse user file: %w", err)
	}
	usersRaw, ok := raw["users"]
	if !ok {
		return nil, 0, fmt.Errorf("invalid user file: field \"users\" is not an array")
	}
	var file userFile
	if err := json.Unmarshal(usersRaw, &file.Users); err != nil || file.Users == nil {
		return nil, 0, fmt.Errorf("invalid user file: field \"users\" is not an array")
	}

	changed := 0
	for _, u := range file.Users {
		plain, ok := u["password"].(string)
		if !ok {
			continue
		}
		hash, err := utils.HashPassword(plain)
		if err != nil {
			return nil, 0, fmt.Errorf("hash password: %w", err)
		}
		delete(u, "password")
		u["passwordHash"] = hash
		changed++
	}
	if changed == 0 {
		return nil, 0, nil
	}

	out, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, 0, err
	}
	return out, changed, nil
}

// HashUsersFile menjalankan HashUserPasswords pada file dan menulis ulang
// file hanya jika ada password yang dikonversi.
func HashUsersFile(path string) (int, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	out, changed, err := HashUserPasswords(doc)
	if err != nil || changed == 0 {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return 0, err
	}
	return changed, nil
}
