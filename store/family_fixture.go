package store

import "time"

// Designated fixture members referenced by the assistant.
const (
	GrandfatherID = "m1"
	GrandmotherID = "m2"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func rel(id string, t RelationType) Relation {
	return Relation{MemberID: id, Type: t}
}

// fixtureMembers is the demo family. Order matters: the person resolver
// falls back to directory order when a name is ambiguous.
var fixtureMembers = []*FamilyMember{
	{
		ID: "m1", FirstName: "Николай", MiddleName: "Петрович", LastName: "Соколов",
		Nickname: "Дед Коля", BirthDate: date(1938, time.March, 12), City: "Тула",
		Bio:      "Инженер-конструктор, сорок лет проработал на оружейном заводе. Любит рыбалку и шахматы.",
		IsActive: true, Generation: 1,
		Relations: []Relation{rel("m2", RelationSpouse), rel("m5", RelationChild), rel("m10", RelationChild), rel("m11", RelationGrandchild), rel("m12", RelationGrandchild)},
	},
	{
		ID: "m2", FirstName: "Мария", MiddleName: "Ивановна", LastName: "Соколова",
		Nickname: "Бабуля", BirthDate: date(1941, time.November, 2), City: "Тула",
		Bio:      "Учительница литературы. Хранительница семейного альбома и рецепта пирога с яблоками.",
		IsActive: true, Generation: 1,
		Relations: []Relation{rel("m1", RelationSpouse), rel("m5", RelationChild), rel("m10", RelationChild), rel("m11", RelationGrandchild), rel("m12", RelationGrandchild)},
	},
	{
		ID: "m3", FirstName: "Павел", MiddleName: "Андреевич", LastName: "Иванов",
		BirthDate: date(1936, time.June, 21), City: "Рязань",
		Bio:      "Фронтовой фотограф, оставил после себя сотни снимков. Основатель рязанской ветви семьи.",
		IsActive: false, Generation: 1,
		Relations: []Relation{rel("m4", RelationSpouse), rel("m6", RelationChild), rel("m8", RelationChild)},
	},
	{
		ID: "m4", FirstName: "Елена", MiddleName: "Сергеевна", LastName: "Иванова",
		BirthDate: date(1940, time.January, 30), City: "Рязань",
		Bio:      "Врач-педиатр. Вырастила двоих детей и помогла вырастить пятерых внуков.",
		IsActive: true, Generation: 1,
		Relations: []Relation{rel("m3", RelationSpouse), rel("m6", RelationChild), rel("m8", RelationChild)},
	},
	{
		ID: "m5", FirstName: "Сергей", MiddleName: "Николаевич", LastName: "Соколов",
		BirthDate: date(1963, time.May, 9), City: "Москва",
		Bio:      "Архитектор. Спроектировал семейную дачу под Тулой.",
		IsActive: true, Generation: 2,
		Relations: []Relation{rel("m1", RelationParent), rel("m2", RelationParent), rel("m7", RelationSpouse), rel("m10", RelationSibling), rel("m11", RelationChild), rel("m12", RelationChild)},
	},
	{
		ID: "m6", FirstName: "Ольга", MiddleName: "Павловна", LastName: "Иванова",
		BirthDate: date(1966, time.August, 17), City: "Рязань",
		Bio:      "Библиотекарь и краевед. Собирает историю рода Ивановых.",
		IsActive: true, Generation: 2,
		Relations: []Relation{rel("m3", RelationParent), rel("m4", RelationParent), rel("m8", RelationSibling)},
	},
	{
		ID: "m7", FirstName: "Наталья", MiddleName: "Викторовна", LastName: "Соколова",
		BirthDate: date(1965, time.February, 4), City: "Москва",
		Bio:      "Музыкант, преподаёт фортепиано. Организует семейные концерты на Новый год.",
		IsActive: true, Generation: 2,
		Relations: []Relation{rel("m5", RelationSpouse), rel("m11", RelationChild), rel("m12", RelationChild)},
	},
	{
		ID: "m8", FirstName: "Андрей", MiddleName: "Павлович", LastName: "Иванов",
		BirthDate: date(1968, time.October, 11), City: "Санкт-Петербург",
		Bio:      "Капитан дальнего плавания. Привозит из рейсов открытки для всей семьи.",
		IsActive: true, Generation: 2,
		Relations: []Relation{rel("m3", RelationParent), rel("m4", RelationParent), rel("m6", RelationSibling), rel("m9", RelationSpouse), rel("m13", RelationChild), rel("m14", RelationChild)},
	},
	{
		ID: "m9", FirstName: "Екатерина", MiddleName: "Олеговна", LastName: "Иванова",
		BirthDate: date(1970, time.April, 25), City: "Санкт-Петербург",
		Bio:      "Дизайнер. Оформила семейную книгу воспоминаний.",
		IsActive: true, Generation: 2,
		Relations: []Relation{rel("m8", RelationSpouse), rel("m13", RelationChild), rel("m14", RelationChild)},
	},
	{
		ID: "m10", FirstName: "Александр", MiddleName: "Николаевич", LastName: "Соколов",
		BirthDate: date(1969, time.July, 3), City: "Тула",
		Bio:      "Дядя Саша. Механик, мастер на все руки, чинит всё от часов до машин.",
		IsActive: true, Generation: 2,
		Relations: []Relation{rel("m1", RelationParent), rel("m2", RelationParent), rel("m5", RelationSibling), rel("m11", RelationUncle), rel("m12", RelationUncle)},
	},
	{
		ID: "m11", FirstName: "Ольга", MiddleName: "Сергеевна", LastName: "Соколова",
		BirthDate: date(1990, time.September, 14), City: "Москва",
		Bio:      "Журналист. Ведёт семейный блог и снимает короткие видео о родственниках.",
		IsActive: true, Generation: 3,
		Relations: []Relation{rel("m5", RelationParent), rel("m7", RelationParent), rel("m12", RelationSibling), rel("m1", RelationGrandparent), rel("m2", RelationGrandparent), rel("m13", RelationCousin)},
	},
	{
		ID: "m12", FirstName: "Дмитрий", MiddleName: "Сергеевич", LastName: "Соколов",
		BirthDate: date(1993, time.December, 1), City: "Москва",
		Bio:      "Программист. Собрал цифровой архив семейных фотографий.",
		IsActive: true, Generation: 3,
		Relations: []Relation{rel("m5", RelationParent), rel("m7", RelationParent), rel("m11", RelationSibling), rel("m15", RelationChild), rel("m16", RelationChild)},
	},
	{
		ID: "m13", FirstName: "Анна", MiddleName: "Андреевна", LastName: "Иванова",
		BirthDate: date(1995, time.March, 8), City: "Санкт-Петербург",
		Bio:      "Биолог, изучает морских млекопитающих. Пишет бабушке Елене письма от руки.",
		IsActive: true, Generation: 3,
		Relations: []Relation{rel("m8", RelationParent), rel("m9", RelationParent), rel("m14", RelationSibling), rel("m11", RelationCousin)},
	},
	{
		ID: "m14", FirstName: "Михаил", MiddleName: "Андреевич", LastName: "Иванов",
		BirthDate: date(1998, time.January, 19), City: "Казань",
		Bio:      "Врач-хирург, продолжил дело бабушки Елены.",
		IsActive: true, Generation: 3,
		Relations: []Relation{rel("m8", RelationParent), rel("m9", RelationParent), rel("m13", RelationSibling), rel("m17", RelationChild)},
	},
	{
		ID: "m15", FirstName: "София", MiddleName: "Дмитриевна", LastName: "Соколова",
		BirthDate: date(2018, time.June, 1), City: "Москва",
		Bio:      "Первоклассница, рисует семейное дерево цветными карандашами.",
		IsActive: true, Generation: 4,
		Relations: []Relation{rel("m12", RelationParent), rel("m16", RelationSibling)},
	},
	{
		ID: "m16", FirstName: "Артём", MiddleName: "Дмитриевич", LastName: "Соколов",
		BirthDate: date(2021, time.February, 27), City: "Москва",
		Bio:      "Самый младший Соколов, любит динозавров.",
		IsActive: true, Generation: 4,
		Relations: []Relation{rel("m12", RelationParent), rel("m15", RelationSibling)},
	},
	{
		ID: "m17", FirstName: "Игорь", MiddleName: "Михайлович", LastName: "Иванов",
		BirthDate: date(2022, time.August, 5), City: "Казань",
		Bio:      "Младший из Ивановых, уже узнаёт всех на фотографиях.",
		IsActive: true, Generation: 4,
		Relations: []Relation{rel("m14", RelationParent)},
	},
}

// FixtureDirectory returns the demo family directory.
func FixtureDirectory() *Directory {
	return NewDirectory(fixtureMembers)
}
