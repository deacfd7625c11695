package models

// Result adalah hasil terstruktur untuk aksi staf: gagal tidak pernah fatal,
// cukup ok=false dengan pesan yang bisa ditampilkan.
type Result struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	// Err disimpan untuk controller (pemetaan status HTTP), tidak dikirim ke klien.
	Err error `json:"-"`
}

func Success(data interface{}) Result {
	return Result{OK: true, Data: data}
}

func Fail(err error) Result {
	return Result{OK: false, Message: err.Error(), Err: err}
}
