// Package policy содержит готовые BeforePoll/AfterPoll hooks для worker.Work.
//
// Policies управляют временем жизни цикла Work без наследования воркера:
//
//	before, _ := policy.StopAtCron("0 3 * * *", "Europe/Moscow", nil)
//	w, _ := worker.New(worker.Config{
//		BeforePoll: policy.AllBefore(policy.UntilDone(ctx), before),
//		AfterPoll:  policy.AllAfter(policy.MaxIterations(1000), policy.StopWhenIdle(10)),
//	})
//
// Policies со счётчиками хранят состояние и предназначены для одного цикла Work.
package policy
