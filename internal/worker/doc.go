// Package worker выполняет графы по запросам из RabbitMQ.
//
// # Обзор
//
// Worker — stateless компонент системы REX, который служит удалённым
// исполнителем для remote.AMQPDelegate:
//
//   - Получает ExecutionRequest из очереди executions.requested
//   - Выполняет граф локальным движком (engine.Engine.Serve)
//   - Отправляет execution.completed в очередь ReplyTo с тем же correlation id
//
// Workers масштабируются горизонтально — несколько экземпляров
// потребляют из одной очереди.
//
//	w := worker.New(worker.Config{
//	    Executor: eng,
//	    Replier:  publisher,
//	    Conn:     mqConn,
//	    Logger:   logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Ошибки
//
// Ошибки графа (валидация, отмена) не приводят к повторной доставке:
// они передаются вызывающему в поле Error ответа. Некорректные сообщения
// подтверждаются и отбрасываются. Сообщение возвращается в очередь
// только если run прерван остановкой воркера.
package worker
