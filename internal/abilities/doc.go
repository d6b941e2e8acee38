// Package abilities содержит встроенные функции заданий воркера.
//
// Каждая ability — это worker.JobFunc, зарегистрированная под своим
// именем. Вход и выход — байты задания; структурированные abilities
// (delay, http) принимают и возвращают JSON.
//
// # Abilities
//
//   - echo: возвращает данные без изменений
//   - reverse: разворачивает строку (UTF-8)
//   - upper: переводит строку в верхний регистр
//   - delay: ждёт duration_sec секунд, сообщая прогресс через work status
//   - http: выполняет HTTP-запрос по JSON-конфигурации
//
// # Регистрация
//
//	w, _ := worker.New(cfg)
//	if err := abilities.Register(w, "echo", "http"); err != nil {
//		return err
//	}
//
// Без имён Register регистрирует все встроенные abilities.
//
// # Конфигурация http
//
//	{
//	  "method": "POST",
//	  "url": "https://example.com/hook",
//	  "headers": {"Authorization": "Bearer ..."},
//	  "body": {"name": "test"},
//	  "timeout_sec": 10
//	}
//
// Результат: {"status_code": 201, "headers": {...}, "body": ...}.
// HTTP-код >= 400 завершает задание ошибкой.
package abilities
