package service

// 用户可见文本
const (
	msgStart           = "Вас привествует бот yuukich1\nТут вы можете получить свой vless ключ"
	msgHelp            = "/vless - получить свой vless\n/create - создать свой vless ключ\n/remove - удалить свой vless ключ\n/online - посмотреть список клиентов которые онлайн\n/usage - посмотреть свой трафик\n/id - узнать свой Telegram ID"
	msgNoProfile       = "У вас нет ни одного профиля. Создайте его с помощью /create"
	msgVlessKey        = "Ваш VLESS ключ:"
	msgCreated         = "✅ Клиент успешно создан"
	msgAlreadyExists   = "⚠️ У вас уже есть активный профиль"
	msgCreateFailed    = "❌ Ошибка при создании клиента. Попробуйте позже."
	msgNotImplemented  = "❌ Эта функция еще не реализована"
	msgInDevelopment   = "⏳ Функция в разработке"
	msgNoUsername      = "Для работы с ботом укажите username в настройках Telegram"
	msgTooManyRequests = "⏳ Слишком много запросов. Попробуйте позже."
	msgUnknownCommand  = "Неизвестная команда. Список команд: /help"
	msgInternalError   = "Произошла ошибка. Попробуйте позже."
	msgPanelDown       = "⚠️ Панель недоступна. Попробуйте позже."
	msgInvalidInput    = "❌ Некорректный username"
	msgOnlineCount     = "🟢 Онлайн: %d"
	msgUsage           = "📊 %s\n↑ %s\n↓ %s\nВсего: %s"
	msgYourID          = "Ваш ID: <code>%d</code>"
	msgNoLogs          = "Логов нет"
)
