package phe

import "encoding/json"

// Optional 表示可能不存在的欄位值，避免以 0 之類的哨兵值代表「缺少」
type Optional[T any] struct {
	value T
	ok    bool
}

// Some 建立存在的值
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None 建立不存在的值
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get 取值，第二個回傳值表示是否存在
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present 是否存在
func (o Optional[T]) Present() bool {
	return o.ok
}

// OrElse 不存在時回傳 fallback
func (o Optional[T]) OrElse(fallback T) T {
	if o.ok {
		return o.value
	}
	return fallback
}

// MarshalJSON 不存在時輸出 null
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON null 視為不存在
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
