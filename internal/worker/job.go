package worker

// Job — одна единица работы, выданная сервером.
//
// Job ссылается на соединение, через которое пришла, но не владеет им.
// Все поля, кроме Conn, неизменяемы после CreateJob.
type Job struct {
	// Conn — соединение, доставившее задание.
	Conn Connection

	// Handle — непрозрачный идентификатор задания, назначенный сервером.
	Handle string

	// Function — имя ability, которая должна выполнить задание.
	Function string

	// Unique — уникальный идентификатор, переданный клиентом.
	Unique string

	// Data — полезная нагрузка задания.
	Data []byte
}
